package gateway

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// 与前端展示约定一致：表格、删除线、任务列表、智能标点
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
)

// RenderMarkdown 把原始Markdown渲染为展示用HTML，渲染失败时退回原文
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return source
	}
	return buf.String()
}
