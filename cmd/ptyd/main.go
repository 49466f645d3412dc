// Command ptyd runs the PTY scheme daemon: a Unix domain socket speaking
// the eventloop/wire protocol in front of a scheme.Scheme multiplexer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ptyd",
		Short: "pseudoterminal scheme daemon",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
