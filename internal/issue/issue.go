// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	NotInitializedId Id = iota + 1
	AlreadyInitializedId
	ManifestNotFoundId
	ManifestParseErrorId
	WorkspaceCycleId
	UnresolvedImportId
	WriteFailedId
	WatchFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	notInitializedIssue = &Issue{
		id: NotInitializedId,
		mdMsg: `
# despace is not initialized here!

There is no ` + "`.despace/config.json`" + ` in the current directory.

## Things you can try:
- Initialize the project from its root directory:
~~~
$ despace init
~~~

- Or point despace at the project root:
~~~
$ despace -C /path/to/project build
~~~`,
		extLinks: []HttpLink{"https://docs.deno.com/runtime/fundamentals/workspaces/"},
	}

	alreadyInitializedIssue = &Issue{
		id: AlreadyInitializedId,
		mdMsg: `
# despace is already initialized!

` + "`.despace/config.json`" + ` already exists, so nothing was changed.

## Things you can try:
- Edit ` + "`.despace/config.json`" + ` directly
- Remove the ` + "`.despace`" + ` directory and run ` + "`despace init`" + ` again`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Project manifest not found!

The file named by ` + "`despace.configSource`" + ` does not exist.

## Things you can try:
- Check ` + "`despace.configSource`" + ` in ` + "`.despace/config.json`" + `
- Override it for one run:
~~~
$ DESPACE_CONFIG_SOURCE=deno.jsonc despace build
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse a manifest!

A deno.json, deno.jsonc or import map file could not be read.

## Common issues:
- Unbalanced braces or quotes
- ` + "`exports`" + ` that is neither a string nor an object of strings
- ` + "`workspaces`" + ` that is not a list of paths

Comments and trailing commas are accepted in both dialects.`,
		extLinks: []HttpLink{"https://docs.deno.com/runtime/fundamentals/configuration/"},
	}

	workspaceCycleIssue = &Issue{
		id: WorkspaceCycleId,
		mdMsg: `
# Workspace cycle detected!

A workspace lists itself, directly or through its children, in ` + "`workspaces`" + `.

## Things you can try:
- Follow the cycle printed above and remove the back reference
- Declare shared packages once, from the common parent`,
	}

	unresolvedImportIssue = &Issue{
		id: UnresolvedImportId,
		mdMsg: `
# Unresolved local import!

An entry in ` + "`imports`" + ` points at a file that does not exist.

## Things you can try:
- Fix the path in the manifest or import map that declares it
- Run without ` + "`--strict`" + ` to keep the entry and report a warning instead`,
	}

	writeFailedIssue = &Issue{
		id: WriteFailedId,
		mdMsg: `
# Failed to write the import map!

` + "`.despace/imports.json`" + ` could not be replaced. The previous file, if any, is untouched.

## Things you can try:
- Check permissions on the ` + "`.despace`" + ` directory
- Make sure the disk is not full`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# The file watcher stopped!

The operating system refused to watch more files.

## Things you can try:
- Raise the inotify limit on Linux:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~
- Raise the open file limit with ` + "`ulimit -n`",
	}

	issues = map[Id]*Issue{
		notInitializedIssue.Id():     notInitializedIssue,
		alreadyInitializedIssue.Id(): alreadyInitializedIssue,
		manifestNotFoundIssue.Id():   manifestNotFoundIssue,
		manifestParseErrorIssue.Id(): manifestParseErrorIssue,
		workspaceCycleIssue.Id():     workspaceCycleIssue,
		unresolvedImportIssue.Id():   unresolvedImportIssue,
		writeFailedIssue.Id():        writeFailedIssue,
		watchFailedIssue.Id():        watchFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
