// msbtool inspects, round-trips and translates message files.
package main

import (
	"github.com/robert-malhotra/go-msbt/cmd/msbtool/cmd"
)

func main() {
	cmd.Execute()
}
