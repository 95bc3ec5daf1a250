// possync mirrors a point-of-sale system's catalog, customers, receipts and
// stock into a local datastore, on demand or on a schedule.
//
// Usage:
//
//	possync setup                          # interactive first-run wizard
//	possync daemon [--config <path>]       # scheduler + operator API
//	possync sync <entity|all> [--full]     # one sync run then exit
//	possync stock                          # reconcile stock then exit
//	possync history [--type t] [--limit n] # browse the history ledger
//	possync settings show|set              # schedule settings
//	possync status                         # service, config and last runs
//	possync uninstall [--purge]            # remove the user service
//	possync version                        # print version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
