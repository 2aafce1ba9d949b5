package service

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var plaintextPolicy = bluemonday.StrictPolicy()

// MarkdownPlaintext 将 Markdown 渲染为 HTML 后剥离全部标签，得到纯文本。
// 情感分析与摘要只关心文字本身，不应被链接、图片等标记干扰。
func MarkdownPlaintext(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &rendered); err != nil {
		// 渲染失败时退回原文，至少保证有内容可分析
		return strings.TrimSpace(markdown)
	}

	stripped := plaintextPolicy.Sanitize(rendered.String())
	unescaped := html.UnescapeString(stripped)

	return strings.Join(strings.Fields(unescaped), " ")
}

// TruncateRunes 以字符为单位截断文本，超出部分以省略号结尾
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
