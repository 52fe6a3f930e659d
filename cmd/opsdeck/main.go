package main

import (
	"github.com/dushixiang/opsdeck/internal/cli"
)

// 构建期通过 ldflags 注入：
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	cli.Execute()
}
