package main

import "github.com/ogulcanaydogan/unicom-bill-guardian/internal/cli"

func main() {
	cli.Execute()
}
