// main.go - wfs-dump entry point
package main

import "github.com/valpere/wfs_dump/cmd"

func main() {
	cmd.Execute()
}
