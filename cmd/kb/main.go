// Package main is the entry point for the Sentinel Knowledge Base Service.
//
//	@title						Sentinel KB API
//	@version					1.0
//	@description				知识库摄取服务 - 基于 Milvus 向量数据库和 Ollama 嵌入模型
//	@termsOfService				https://github.com/kart-io/sentinel-kb
//
//	@contact.name				Sentinel Team
//	@contact.url				https://github.com/kart-io/sentinel-kb
//	@contact.email				support@sentinel-kb.io
//
//	@license.name				Apache 2.0
//	@license.url				http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host						localhost:8083
//	@BasePath					/
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	kb "github.com/kart-io/sentinel-kb/internal/kb"
)

func main() {
	kb.NewApp().Run()
}
