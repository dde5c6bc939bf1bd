package commerce

// PageQuery fetches a page by handle in the requested locale.
const PageQuery = `#graphql
  query Page(
    $language: LanguageCode,
    $country: CountryCode,
    $handle: String!
  )
  @inContext(language: $language, country: $country) {
    page(handle: $handle) {
      handle
      id
      title
      body
      seo {
        description
        title
      }
    }
  }
`

// FooterQuery fetches the footer navigation menu.
const FooterQuery = `#graphql
  query Footer(
    $country: CountryCode
    $footerMenuHandle: String!
    $language: LanguageCode
  ) @inContext(language: $language, country: $country) {
    menu(handle: $footerMenuHandle) {
      id
      items {
        id
        resourceId
        tags
        title
        type
        url
      }
    }
  }
`
