// Command carrot runs the Study Bunny carrot currency wallet.
package main

import "github.com/studybunny/carrot/internal/cli"

func main() {
	cli.Execute()
}
