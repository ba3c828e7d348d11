package message

// Validator 只负责输入校验
type Validator struct{}

// IsValid 内容和发送者都不为空时返回 true
func (Validator) IsValid(content, sender string) bool {
	return content != "" && sender != ""
}
