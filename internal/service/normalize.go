package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// 文本长度超过该值才追加引用编号
	minAnnotatedTextLen = 100
	// 句子长度超过该值才追加引用编号
	minAnnotatedSentenceLen = 20
	// 最多为前 N 句追加引用编号
	maxAnnotatedSentences = 4
	// 嵌套标记每轮只剥掉一层，最多重复清理这么多轮
	maxCleanPasses = 8
)

var (
	reBold           = regexp.MustCompile(`\*\*([^*]*)\*\*`)
	reBoldUnderscore = regexp.MustCompile(`__([^_]+)__`)
	reBlockMath      = regexp.MustCompile(`\$\$([\s\S]*?)\$\$`)
	reInlineMath     = regexp.MustCompile(`\\\(([\s\S]*?)\\\)`)
	reDisplayMath    = regexp.MustCompile(`\\\[([\s\S]*?)\\\]`)
	reLatexCmdArg    = regexp.MustCompile(`\\[a-zA-Z]+\{([^{}]*)\}`)
	reLatexCmd       = regexp.MustCompile(`\\[a-zA-Z]+`)
	reBackslash      = regexp.MustCompile(`\\+`)
	reHeader         = regexp.MustCompile(`(?m)^(?:[ \t]*#{1,6}[ \t]+)+`)
	reParenLink      = regexp.MustCompile(`\(\s*\[([^\]]+)\]\([^)]*\)\s*\)`)
	reLink           = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reSpace          = regexp.MustCompile(`\s+`)
)

// NormalizeAnswer 清理 markdown/LaTeX 痕迹，并在存在真实来源时为前几句追加 [n] 引用编号。
// 对已经清理过的文本再次调用结果不变。
func NormalizeAnswer(text string, sourceCount int) string {
	cleaned := CleanMarkdown(text)
	if sourceCount <= 0 || utf8.RuneCountInString(cleaned) <= minAnnotatedTextLen {
		return cleaned
	}
	return annotateSentences(cleaned, sourceCount)
}

// CleanMarkdown 按固定顺序去除粗体、数学公式、LaTeX 命令、标题和链接语法，并归一空白。
// 规则会重复执行直到输出不再变化，"[[a](x)](y)" 这类嵌套标记也能一次清理干净。
func CleanMarkdown(text string) string {
	s := text
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func cleanOnce(text string) string {
	s := reBold.ReplaceAllString(text, "$1")
	s = reBoldUnderscore.ReplaceAllString(s, "$1")
	s = reBlockMath.ReplaceAllString(s, "$1")
	s = reInlineMath.ReplaceAllString(s, "$1")
	s = reDisplayMath.ReplaceAllString(s, "$1")
	s = reLatexCmdArg.ReplaceAllString(s, "$1")
	s = reLatexCmd.ReplaceAllString(s, "")
	s = reBackslash.ReplaceAllString(s, "")
	s = reHeader.ReplaceAllString(s, "")

	s = reParenLink.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")

	s = reSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// annotateSentences 以 ". " 朴素分句，给前 min(sourceCount, 4) 句中足够长且不含 '[' 的句子追加编号。
func annotateSentences(text string, sourceCount int) string {
	sentences := strings.Split(text, ". ")
	limit := sourceCount
	if limit > maxAnnotatedSentences {
		limit = maxAnnotatedSentences
	}
	if limit > len(sentences) {
		limit = len(sentences)
	}

	for i := 0; i < limit; i++ {
		s := sentences[i]
		if utf8.RuneCountInString(strings.TrimSpace(s)) <= minAnnotatedSentenceLen || strings.Contains(s, "[") {
			continue
		}
		marker := " [" + strconv.Itoa(i+1) + "]"
		// 末句自带句号时，编号放在句号之前
		if body, ok := strings.CutSuffix(s, "."); ok {
			sentences[i] = body + marker + "."
		} else {
			sentences[i] = s + marker
		}
	}
	return strings.Join(sentences, ". ")
}
