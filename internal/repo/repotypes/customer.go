package repotypes

type CustomerFilter struct {
	Search string
	Limit  int
	Offset int
}
