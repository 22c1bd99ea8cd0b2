// Package main is the entry point for the DocLens knowledge base service.
//
//	@title			DocLens KB API
//	@version		1.0
//	@description	知识库问答服务 - 基于向量检索与 LLM 生成
//
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	doclens "github.com/lattice-io/doclens/internal/doclens"
)

func main() {
	doclens.NewApp().Run()
}
