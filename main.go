package main

import "orderhub/cmd"

func main() {
	cmd.Execute()
}
