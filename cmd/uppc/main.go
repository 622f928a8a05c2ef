// Command uppc expands @-macro invocations in a C-like source file to
// a fixed point and writes the result to stdout or a file.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
