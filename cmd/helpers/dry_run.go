package helpers

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintConfigInfo prints the effective configuration in dry-run mode
func PrintConfigInfo(w io.Writer, source string, cfg any) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Configuration (DRY RUN) from %s\n", source)
	fmt.Fprintln(w, "========================================")

	jsonBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "  %v\n", cfg)
	} else {
		fmt.Fprintf(w, "%s\n", string(jsonBytes))
	}

	fmt.Fprintln(w, "----------------------------------------")
}
