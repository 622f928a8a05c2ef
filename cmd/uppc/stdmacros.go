package main

import (
	"github.com/upplang/uppc/internal/engine"
	"github.com/upplang/uppc/internal/stdmacros"
)

func loadExtraDefs() ([]*engine.Definition, error) {
	if flagNoStdMacros {
		return nil, nil
	}
	return stdmacros.Definitions()
}
