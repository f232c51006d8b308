package preview

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// languageByExt maps source extensions to highlighter lexer names.
var languageByExt = map[string]string{
	"go":   "go",
	"py":   "python",
	"js":   "javascript",
	"ts":   "typescript",
	"jsx":  "jsx",
	"tsx":  "tsx",
	"html": "html",
	"css":  "css",
	"json": "json",
	"yaml": "yaml",
	"yml":  "yaml",
	"toml": "toml",
	"sh":   "bash",
	"bash": "bash",
	"sql":  "sql",
	"rb":   "ruby",
	"rs":   "rust",
	"java": "java",
	"c":    "c",
	"h":    "c",
	"cpp":  "cpp",
	"xml":  "xml",
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts markdown to an HTML fragment.
func renderMarkdown(content []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("preview: converting markdown: %w", err)
	}
	return buf.String(), nil
}

// renderCode highlights source code into an HTML fragment.
func renderCode(filePath string, content []byte) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filePath)), ".")
	lexer := lexers.Get(languageByExt[ext])
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, string(content))
	if err != nil {
		return "", fmt.Errorf("preview: tokenizing %s: %w", filePath, err)
	}

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithLineNumbers(true))
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", fmt.Errorf("preview: formatting %s: %w", filePath, err)
	}
	return buf.String(), nil
}
