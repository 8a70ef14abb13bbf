// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	ToolsDirNotFoundId Id = iota + 1
	NoInputFilesId
	WriteFailureId
	ParseFailuresId
	RelativeImportsId
	ConfigLoadFailedId
	ManifestInvalidId
	CloneFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // project documentation about this issue
	}
)

var (
	render = glamour.Render

	toolsDirNotFoundIssue = &Issue{
		id: ToolsDirNotFoundId,
		mdMsg: `
# Tools directory not found!

toolmerge looks for tool repositories in a single directory, one folder per repository.

## Things you can try:
- Clone the repositories listed in a manifest:
~~~
$ toolmerge fetch --manifest repos.toml
~~~
- Point toolmerge at an existing directory:
~~~
$ toolmerge build --tools-dir ./my-tools
~~~`,
	}

	noInputFilesIssue = &Issue{
		id: NoInputFilesId,
		mdMsg: `
# No Python modules found!

The tools directory exists but contains no ` + "`.py`" + ` files after exclusions were applied.
Nothing was written.

## Things you can try:
- Check the ` + "`excludes`" + ` list in your config file
- Make sure each tool repository was cloned completely`,
	}

	writeFailureIssue = &Issue{
		id: WriteFailureId,
		mdMsg: `
# Could not write the merged server!

Every module was processed, but the output file could not be created.
The previous output (if any) was left untouched.

## Things you can try:
- Check that the output directory is writable
- Choose another destination with ` + "`--output`",
	}

	parseFailuresIssue = &Issue{
		id: ParseFailuresId,
		mdMsg: `
# Some modules were skipped

One or more files are not valid Python 3 source. They were left out of the merged server;
every other module was merged normally.

## Things you can try:
- Run ` + "`python -m py_compile <file>`" + ` on the reported files
- Exclude generated or Python 2 files with the ` + "`excludes`" + ` setting`,
	}

	relativeImportsIssue = &Issue{
		id: RelativeImportsId,
		mdMsg: `
# Relative imports were dropped

Imports such as ` + "`from . import helpers`" + ` only work inside their original package and
cannot be carried into a single merged module.

## Things you can try:
- Inline the helper into the tool module
- Replace the relative import with an absolute, installable package import`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Validate the CUE syntax of your config file
- Show the effective configuration:
~~~
$ toolmerge config show
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid repository manifest!

A manifest is TOML:
~~~toml
[[repos]]
name = "weather"
url = "https://github.com/example/weather-tool.git"
~~~
a YAML document with the same ` + "`repos`" + ` list:
~~~yaml
repos:
  - name: weather
    url: https://github.com/example/weather-tool.git
~~~
or a JSON array of ` + "`{\"tool_name\": ..., \"tool_git_link\": ...}`" + ` objects.

The file extension (` + "`.toml`, `.yaml`, `.yml`, `.json`" + `) selects the format.`,
	}

	cloneFailedIssue = &Issue{
		id: CloneFailedId,
		mdMsg: `
# Failed to clone a tool repository!

## Things you can try:
- Check the repository URL and your network connection
- For private repositories set ` + "`GITHUB_TOKEN`" + ` or ` + "`GIT_TOKEN`" + ` (a ` + "`.env`" + ` file works too)`,
	}

	issues = map[Id]*Issue{
		toolsDirNotFoundIssue.Id(): toolsDirNotFoundIssue,
		noInputFilesIssue.Id():     noInputFilesIssue,
		writeFailureIssue.Id():     writeFailureIssue,
		parseFailuresIssue.Id():    parseFailuresIssue,
		relativeImportsIssue.Id():  relativeImportsIssue,
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		manifestInvalidIssue.Id():  manifestInvalidIssue,
		cloneFailedIssue.Id():      cloneFailedIssue,
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

// Render renders the Markdown message with the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

// Values returns every known issue ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

// Get returns the issue with the given Id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
