// The main package for the thirteenf executable.
package main

import "github.com/aharmon/thirteenf/cmd"

func main() {
	cmd.Execute()
}
