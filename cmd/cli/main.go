package main

import "lognorm-backend/internal/cli"

func main() {
	cli.Execute()
}
