// Command tablebook runs the table booking and walk-in queue service.
package main

import (
    "fmt"
    "os"
)

func main() {
    if err := newRootCmd().Execute(); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}
