package main

import "github.com/openEuler-BaseService/polkit-pkla-compat/cmd/pkla/cmd"

func main() {
	cmd.Execute()
}
