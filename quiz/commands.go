package quiz

// Command tokens recognised in raw chat text.
const (
	CmdAbort          = "!abort"
	CmdCreateQuestion = "!createQuestion"
	CmdQuestion       = "!question"
	CmdAnswer         = "!answer"
	CmdSave           = "!save"
)
