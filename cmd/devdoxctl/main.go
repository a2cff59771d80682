// Package main provides devdoxctl, the DevDox command line client.
package main

import "github.com/devdox/dashboard/cmd/devdoxctl/cmd"

func main() {
	cmd.Execute()
}
