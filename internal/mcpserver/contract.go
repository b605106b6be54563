package mcpserver

// BlockFormatContract describes the block document format that LLM
// consumers should follow when creating documents or inserting blocks.
const BlockFormatContract = `# Wayfarer Block Format Contract

A Wayfarer document is an ordered, non-empty list of blocks.

## Structure

` + "```" + `json
{
  "id": "lisbon-2024",
  "title": "Lisbon",
  "blocks": [
    {"id": "b1", "type": "heading1", "content": [{"text": "Day one"}]},
    {"id": "b2", "type": "paragraph", "alignment": "center",
     "content": [{"text": "Tram 28 ", "bold": true}, {"text": "to Alfama"}]},
    {"id": "b3", "type": "image", "content": [],
     "imageUrl": "/attachments/tram.jpg", "imageAlt": "Yellow tram"}
  ]
}
` + "```" + `

## Rules

1. **Block ids** are required and unique within a document.
2. **Types** are one of ` + "`" + `paragraph` + "`" + `, ` + "`" + `heading1` + "`" + `, ` + "`" + `heading2` + "`" + `, ` + "`" + `heading3` + "`" + `,
   ` + "`" + `quote` + "`" + `, ` + "`" + `code` + "`" + ` and ` + "`" + `image` + "`" + `.
3. **Alignment** is ` + "`" + `left` + "`" + `, ` + "`" + `center` + "`" + ` or ` + "`" + `right` + "`" + ` (empty means left).
4. **Content** is a list of runs. A run has ` + "`" + `text` + "`" + ` and optional ` + "`" + `bold` + "`" + `,
   ` + "`" + `italic` + "`" + ` and ` + "`" + `link` + "`" + `. Links are absolute URLs or site paths starting with ` + "`" + `/` + "`" + `.
5. **No HTML.** Content is structured; markup in text is shown literally.
6. **Document ids** use letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + ` only.

## Inline markup

Tools that take ` + "`" + `markup` + "`" + ` accept a lightweight syntax instead of runs:
` + "`" + `**bold**` + "`" + `, ` + "`" + `_italic_` + "`" + `, ` + "`" + `[label](https://example.com)` + "`" + `. Escape a marker
with a backslash (` + "`" + `\*` + "`" + `, ` + "`" + `\_` + "`" + `, ` + "`" + `\[` + "`" + `).

## Images

- Set an image with the ` + "`" + `set_block_image` + "`" + ` tool. It accepts http(s) URLs,
  ` + "`" + `data:` + "`" + ` URIs and existing ` + "`" + `/attachments/` + "`" + ` paths, applies the default
  centered crop, and stores the result as a JPEG in ` + "`" + `attachments/` + "`" + `.
- Supported sources: png, jpg, jpeg, gif, webp.
- Always reference stored images by absolute path: ` + "`" + `/attachments/filename.jpg` + "`" + `.
`
