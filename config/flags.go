package config

import (
	"flag"
	"io"
)

// Flags command line options of the bridge binary.
type Flags struct {
	ConfigPath string
	Setup      bool
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("alertbridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&f.Setup, "setup", false, "run the interactive config wizard and write config.gen.yaml")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if f.Setup && f.ConfigPath == "" {
		f.ConfigPath = GeneratedConfigFile
	}
	return f, nil
}
