package model

// Validate 校验过滤配置
func (c *FilterConfig) Validate() error {
	if c.MinLength != nil && *c.MinLength < 0 {
		return NewValidationError("minLength must not be negative, got %d", *c.MinLength)
	}
	if c.MaxLength != nil && *c.MaxLength < 0 {
		return NewValidationError("maxLength must not be negative, got %d", *c.MaxLength)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return NewValidationError("minLength %d exceeds maxLength %d", *c.MinLength, *c.MaxLength)
	}
	switch c.LengthScope {
	case "", ScopeInstruction, ScopeOutput, ScopeCombined:
	default:
		return NewValidationError("unknown lengthScope %q", c.LengthScope)
	}
	return nil
}

// Validate 校验蒸馏配置
func (c *DistillConfig) Validate() error {
	if c.TargetCount != nil && c.TargetPercent != nil {
		return NewValidationError("targetCount and targetPercent are mutually exclusive")
	}
	if c.TargetCount != nil && *c.TargetCount < 0 {
		return NewValidationError("targetCount must not be negative, got %d", *c.TargetCount)
	}
	if c.TargetPercent != nil && (*c.TargetPercent <= 0 || *c.TargetPercent > 100) {
		return NewValidationError("targetPercent must be in (0, 100], got %v", *c.TargetPercent)
	}
	switch c.Strategy {
	case "", StrategyRandom, StrategyDiversity, StrategyImportance:
	default:
		return NewValidationError("unknown strategy %q", c.Strategy)
	}
	return nil
}

// ValidView 判断视图名是否合法
func ValidView(view string) bool {
	switch view {
	case ViewAll, ViewFiltered, ViewSelected, ViewRemoved:
		return true
	}
	return false
}

// ValidExportFormat 判断导出格式是否受支持
func ValidExportFormat(format string) bool {
	return format == FormatJSON || format == FormatCSV
}
