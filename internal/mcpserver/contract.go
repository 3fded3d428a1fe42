package mcpserver

// FormatContract describes the canonical suite and test case files that
// LLM consumers should follow when creating or updating entities.
const FormatContract = `# testrack Entity Format Contract

A workspace is a directory tree of YAML files. Two kinds of file are entities:

- ` + "`" + `<suite-dir>/index.yaml` + "`" + ` declares a **suite**.
- ` + "`" + `<any-dir>/<ID>.testcase.yaml` + "`" + ` declares a **test case**.

Every other file is ignored. Directories starting with a dot (including
` + "`" + `.trash` + "`" + `) are never scanned.

## Suite

` + "```" + `yaml
id: login                 # REQUIRED – [A-Za-z0-9_-]+, unique across the workspace
title: Login flows        # REQUIRED
tags: [auth]
description: ""
scoped: true              # only scoped cases count toward burndown
owners: [kim]
duration:                 # REQUIRED
  scheduled: {start: 2026-03-01, end: 2026-03-14}
  actual:    {start: 2026-03-02, end: 2026-03-15}
related: [checkout]       # ids of other suites or cases
remarks: []
` + "```" + `

## Test case

` + "```" + `yaml
id: TC-1                  # REQUIRED
title: Password login     # REQUIRED
tags: [smoke]
description: ""
scoped: true
status: todo              # todo | doing | done | null
operations:
  - open the login page
  - submit valid credentials
related: [TC-2]
remarks: []
completedDay: null        # YYYY-MM-DD once done; drives the actual burndown
tests:
  - name: valid password  # REQUIRED within a test
    expected: dashboard
    actual: ""
    trails: []
    status: null          # pass | fail | skip | block | null
issues:
  - incident: slow redirect   # REQUIRED within an issue
    owners: [kim]
    causes: []
    solutions: []
    status: open              # open | doing | resolved | pending
    detectedDay: null
    completedDay: null
    related: []
    remarks: []
` + "```" + `

## Rules

1. **Keys are fixed.** Strict validation rejects unknown keys. Create and update
   drop them with a warning.
2. **Dates** are calendar dates in ` + "`" + `YYYY-MM-DD` + "`" + ` form.
3. **Ids never change.** Update rejects a patch that renames the entity.
4. **Status values** are lowercase. Mixed case input is folded; unknown values
   become null (issues fall back to ` + "`" + `open` + "`" + `).
5. **Legacy issue keys** ` + "`" + `cause` + "`" + ` and ` + "`" + `solution` + "`" + ` are accepted on read and rewritten as
   ` + "`" + `causes` + "`" + ` and ` + "`" + `solutions` + "`" + `. When both spellings are present the canonical key wins.
6. **Related links** name ids, not paths. Use ` + "`" + `link_entities` + "`" + ` to keep both sides in
   step, or ` + "`" + `sync_related` + "`" + ` to repair one-sided links.
7. **Encoding** is UTF-8. File and directory names should use Latin characters.

## Workflow

1. Call ` + "`" + `validate_entity` + "`" + ` to preview a payload.
2. Create with ` + "`" + `create_suite` + "`" + ` / ` + "`" + `create_case` + "`" + ` or copy with ` + "`" + `create_from_template` + "`" + `.
3. Record progress with ` + "`" + `update_entity` + "`" + ` (e.g. ` + "`" + `{"status":"done","completedDay":"2026-03-05"}` + "`" + `).
4. Check the whole tree with ` + "`" + `lint_workspace` + "`" + `.
`
