// Command partarjan runs the parallel strongly-connected-components core
// from the command line.
package main

import "github.com/parascc/partarjan/cmd/partarjan/cmd"

func main() {
	cmd.Execute()
}
