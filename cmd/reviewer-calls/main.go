package main

import "github.com/JakeFAU/reviewer-calls/cmd"

func main() {
	cmd.Execute()
}
