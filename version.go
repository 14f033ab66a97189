package main

// _version is the version of yard2md.
// Overridden at release time with -ldflags.
var _version = "dev"
