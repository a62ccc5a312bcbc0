package main

import "github.com/OpenTraceLab/OpenTraceSegbits/cmd/segmaker/cmd"

func main() {
	cmd.Execute()
}
