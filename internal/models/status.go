package models

// CaseStatus is the lifecycle state of a test case.
type CaseStatus string

// Case statuses.
const (
	CaseTodo  CaseStatus = "todo"
	CaseDoing CaseStatus = "doing"
	CaseDone  CaseStatus = "done"
)

// CaseStatuses lists every valid case status in canonical order.
var CaseStatuses = []CaseStatus{CaseTodo, CaseDoing, CaseDone}

// TestStatus is the outcome of a single test item.
type TestStatus string

// Test item statuses.
const (
	TestPass  TestStatus = "pass"
	TestFail  TestStatus = "fail"
	TestSkip  TestStatus = "skip"
	TestBlock TestStatus = "block"
)

// TestStatuses lists every valid test item status.
var TestStatuses = []TestStatus{TestPass, TestFail, TestSkip, TestBlock}

// IssueStatus is the lifecycle state of an issue.
type IssueStatus string

// Issue statuses. IssueOpen is the default.
const (
	IssueOpen     IssueStatus = "open"
	IssueDoing    IssueStatus = "doing"
	IssueResolved IssueStatus = "resolved"
	IssuePending  IssueStatus = "pending"
)

// IssueStatuses lists every valid issue status.
var IssueStatuses = []IssueStatus{IssueOpen, IssueDoing, IssueResolved, IssuePending}

var (
	validCaseStatuses  = toSet(CaseStatuses)
	validTestStatuses  = toSet(TestStatuses)
	validIssueStatuses = toSet(IssueStatuses)
)

// ParseCaseStatus matches s exactly against the case status allow-list.
func ParseCaseStatus(s string) (CaseStatus, bool) {
	_, ok := validCaseStatuses[CaseStatus(s)]
	return CaseStatus(s), ok
}

// ParseTestStatus matches s exactly against the test status allow-list.
func ParseTestStatus(s string) (TestStatus, bool) {
	_, ok := validTestStatuses[TestStatus(s)]
	return TestStatus(s), ok
}

// ParseIssueStatus matches s exactly against the issue status allow-list.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	_, ok := validIssueStatuses[IssueStatus(s)]
	return IssueStatus(s), ok
}

// StatusValues converts a typed status list to plain strings.
func StatusValues[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func toSet[T comparable](in []T) map[T]struct{} {
	out := make(map[T]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
