package main

import "seoaudit/cmd"

func main() {
	cmd.Execute()
}
