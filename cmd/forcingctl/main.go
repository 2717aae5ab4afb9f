package main

import "github.com/garyjia/forcing-workflow/internal/cli"

func main() {
	cli.Execute()
}
