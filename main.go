package main

import "github.com/redlinehq/coverlay/cmd"

func main() {
	cmd.Execute()
}
