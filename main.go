/*
Copyright © 2026 Sam Thambad
*/
package main

import "github.com/samthambad/naviin/cmd"

func main() {
	cmd.Execute()
}
