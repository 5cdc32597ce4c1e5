package main

import (
	"github.com/xkilldash9x/chatscribe/cmd"
)

func main() {
	cmd.Execute()
}
