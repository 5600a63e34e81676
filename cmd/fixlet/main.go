package main

import (
	"encoding/json"
	"fmt"
	"os"

	"fixlet/internal/cli"
	"fixlet/pkg/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		record, marshalErr := json.Marshal(errors.AsError(err))
		if marshalErr != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, string(record))
		}
		os.Exit(1)
	}
}
