package content

// portableText projects rich text blocks, normalizing legacy block type names.
const portableText = `
  ...,
  (_type == 'blockAccordion' || _type == 'module.accordion') => {
    '_type': 'module.accordion',
    groups[]{ _key, title, body },
  },
  (_type == 'block') => {
    '_type': 'block',
    style,
    children[]{ _type, text, marks },
    markDefs[]{ ... }
  },
  (_type == 'blockLiveStory' || _type == 'module.livestory') => {
    '_type': 'module.livestory',
    _type == "blockLiveStory" => {
      "refId": reference->_id,
      "refType": reference->_type,
      "title": reference->title,
      "id": reference->id,
      "type": reference->type
    },
    _type == "module.livestory" => {
      title,
      id,
      type
    }
  }
`

// PageQuery selects the page document for $slug in $language. Documents
// without a language field match every language.
const PageQuery = `
  coalesce(
    *[
      _type == 'page'
      && slug.current == $slug
      && (!defined(language) || language == $language)
    ][0],
  ) {
    _id,
    _type,
    title,
    "slug": slug.current,
    language,
    seo,
    "liveStory": coalesce(liveStory->{ title, id, type }, liveStory{ title, id, type }),
    body[]{` + portableText + `}
  }
`
