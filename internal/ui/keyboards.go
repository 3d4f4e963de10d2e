package ui

// AdminKeyboard is the reply keyboard shown to administrators when idle.
func AdminKeyboard() [][]string {
	return [][]string{
		{BtnAddMovie, BtnAddSeries},
		{BtnEdit, BtnDelete},
	}
}

// CancelKeyboard is shown while a workflow waits for input.
func CancelKeyboard() [][]string {
	return [][]string{{BtnCancel}}
}

// CollectKeyboard is shown while episodes are collected.
func CollectKeyboard() [][]string {
	return [][]string{{BtnFinish, BtnCancel}}
}

// IsAdminMenuButton reports whether text starts an admin workflow.
func IsAdminMenuButton(text string) bool {
	switch text {
	case BtnAddMovie, BtnAddSeries, BtnEdit, BtnDelete:
		return true
	}
	return false
}
