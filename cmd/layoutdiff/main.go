package main

import "github.com/dbsmedya/layoutdiff/cmd/layoutdiff/cmd"

func main() {
	cmd.Execute()
}
