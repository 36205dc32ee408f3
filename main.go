package main

import "github.com/oceanobs/erddap-harvester/cmd"

func main() {
	cmd.Execute()
}
