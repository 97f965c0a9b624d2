package main

import "sales-report-go/cli"

func main() {
	cli.Execute()
}
