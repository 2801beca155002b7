package main

import (
	"fmt"
	"os"

	"github.com/vaidashi/order-status-sync/internal/config"
)

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
