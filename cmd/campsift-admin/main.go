package main

import "github.com/okian/campsift/internal/admin"

func main() {
	admin.Execute()
}
