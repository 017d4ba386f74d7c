package main

import "github.com/nguyentranbao-ct/agent-console/cmd"

func main() {
	cmd.Execute()
}
