package mcpserver

// LinkSyntaxURI is the resource describing how notes link to each other.
const LinkSyntaxURI = "berkana://link-syntax"

// LinkSyntax describes the note format the builder understands, for LLM
// consumers that read or draft notes.
const LinkSyntax = `# Note Format

Notes are Markdown files under the content directory. A note's id is its
path relative to that directory, including the .md extension.

## Frontmatter

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL, defaults to the file name
summary: One line for cards   # OPTIONAL
标题: false                    # OPTIONAL, hides the title in the viewer
---
` + "```" + `

Frontmatter that does not parse is ignored and the whole file is the body.

## Links and embeds

- ` + "`[[target]]`" + ` and ` + "`[[target|label]]`" + ` link to another file.
- ` + "`![[image.png]]`" + ` embeds an image, ` + "`![[clip.mp4]]`" + ` a video.
- A target is looked up next to the linking note first, then from the
  content root, then anywhere in the repository (with .md and common media
  extensions tried when none is given), then by file name.
- Targets that match nothing are kept as written; the build never fails on
  a broken link.

## Folder covers

A folder's cover is the first image of a note titled or named 封面, else
the first image of any note directly inside the folder.
`
