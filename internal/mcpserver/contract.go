package mcpserver

// LayoutContract describes the on-disk layout of a graph workspace for tool
// consumers that read or write files directly.
const LayoutContract = `# NodeNote Graph Layout

A graph named NAME created under BASE lives at BASE/NAME:

` + "```" + `
BASE/NAME/
  .graph/               marker: this directory is a graph workspace
  .nodenoteignore       optional gitignore-style patterns skipped when scanning nodes
  nodenote/
    config.edn          static config stub with a version marker
    nodes/              one markdown file (and optional directory) per node
    edges/              relationship data between nodes
` + "```" + `

## Nodes

- A node is a markdown file ` + "`" + `nodes/foo.md` + "`" + `. Its base name is ` + "`" + `foo` + "`" + `.
- Files sharing the base name are associated with the node. Extra dot-separated
  segments are sublabels: ` + "`" + `foo.meta.png` + "`" + ` and ` + "`" + `foo.notes.md` + "`" + ` belong to ` + "`" + `foo` + "`" + `;
  ` + "`" + `foobar.png` + "`" + ` does not.
- Node names must not contain dots or path separators.
- Nodes in subdirectories are addressed with the directory as prefix: ` + "`" + `dir/foo` + "`" + `.
- A node owns a subgraph when ` + "`" + `nodes/foo/.graph/` + "`" + ` exists.

## Registry

Known graphs are listed in ` + "`" + `graph_registry.json` + "`" + ` in the application data
directory. Use the ` + "`" + `validate_graphs` + "`" + ` tool with ` + "`" + `repair` + "`" + ` to drop graphs whose directory
no longer exists.
`
