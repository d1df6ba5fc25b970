package main

import (
	"context"
	"fmt"

	"github.com/a-h/chatrag"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(chatrag.Version)
	return nil
}
