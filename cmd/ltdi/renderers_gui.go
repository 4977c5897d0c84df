//go:build !nogui

package main

import _ "github.com/holon-run/ltdi/pkg/renderer/gui"
