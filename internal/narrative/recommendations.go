package narrative

import (
	"strings"
)

const (
	maxRecommendations   = 5
	minRecommendationLen = 10
)

// 进入推荐区块的标题关键词（不区分大小写）
var recommendationMarkers = []string{
	"recommendation",
	"suggestion",
	"measures",
	"improvement",
}

// 推荐区块结束的章节关键词
var sectionEndMarkers = []string{
	"WARNING",
	"FORECAST",
	"CONCLUSION",
}

// ExtractRecommendations 从生成的叙述文本中启发式抽取推荐项
// 扫描推荐标题之后的编号/项目符号行，去掉前缀，丢弃过短片段，
// 遇到下一个无关章节标题停止，最多返回 5 条。
// 这是尽力而为的文本解析，不是结构化契约。
func ExtractRecommendations(text string) []string {
	recommendations := []string{}
	inRecommendations := false

	for _, line := range strings.Split(text, "\n") {
		if !inRecommendations {
			if containsAnyFold(line, recommendationMarkers) {
				inRecommendations = true
			}
			continue
		}

		if containsAny(line, sectionEndMarkers) {
			break
		}

		item, ok := stripListPrefix(strings.TrimSpace(line))
		if !ok {
			continue
		}
		if len(item) <= minRecommendationLen {
			continue
		}

		recommendations = append(recommendations, item)
		if len(recommendations) >= maxRecommendations {
			break
		}
	}

	return recommendations
}

// stripListPrefix 识别并剥离编号（"1." / "1)"）或项目符号（- • + *）前缀
func stripListPrefix(line string) (string, bool) {
	if line == "" {
		return "", false
	}

	// 编号前缀：一串数字后跟 . 或 )
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(strings.TrimLeft(line[i+1:], ".) ")), true
	}

	// 项目符号前缀
	for _, bullet := range []string{"- ", "• ", "+ ", "* "} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(line[len(bullet):]), true
		}
	}

	return "", false
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
