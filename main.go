package main

import "bitbucket-stats/cmd"

func main() {
	cmd.Execute()
}
