package main

import "github.com/gestionclick24-cpu/captive/cmd"

func main() {
	cmd.Execute()
}
