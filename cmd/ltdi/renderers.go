package main

import (
	_ "github.com/holon-run/ltdi/pkg/renderer/script"
	_ "github.com/holon-run/ltdi/pkg/renderer/term"
)
