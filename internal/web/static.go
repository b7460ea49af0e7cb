package web

import (
	"embed"
)

// static holds the calculator page and its assets.
//
//go:embed static/*
var staticFiles embed.FS
