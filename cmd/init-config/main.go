// Command init-config writes a starter config.yaml with documented defaults.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoBitflyer/bitflyer-trader/internal/config"
)

func main() {
	out := flag.String("out", "config.yaml", "output path")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if !*force {
		if _, err := os.Stat(*out); err == nil {
			fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *out)
			os.Exit(1)
		}
	}

	cfg := config.Default()
	cfg.APIKey = "YOUR_BITFLYER_API_KEY"
	cfg.APISecret = "YOUR_BITFLYER_API_SECRET"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal config: %v\n", err)
		os.Exit(1)
	}
	header := "# bitflyer-trader configuration.\n" +
		"# API credentials may also come from BITFLYER_API_KEY / BITFLYER_API_SECRET.\n"
	if err := os.WriteFile(*out, append([]byte(header), data...), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}
