package shopify

const orderFields = `
  id
  name
  tags
  createdAt
  totalPriceSet { shopMoney { amount currencyCode } }
  customer { id email firstName lastName }
  shippingAddress { address1 address2 city country province zip }
  lineItems(first: 250) {
    nodes {
      id
      name
      quantity
      unfulfilledQuantity
      sku
      variant { id sku }
    }
  }
`

const ordersQuery = `
query Orders($first: Int!, $after: String, $query: String!, $sortKey: OrderSortKeys, $reverse: Boolean) {
  orders(first: $first, after: $after, query: $query, sortKey: $sortKey, reverse: $reverse) {
    nodes {` + orderFields + `}
    pageInfo { hasNextPage endCursor }
  }
}`

const orderCreateMutation = `
mutation OrderCreate($order: OrderCreateOrderInput!, $options: OrderCreateOptionsInput) {
  orderCreate(order: $order, options: $options) {
    order {
      id
      name
      requiresShipping
      totalTaxSet { shopMoney { amount currencyCode } }
    }
    userErrors { field message }
  }
}`

const draftOrderCreateMutation = `
mutation DraftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder {
      id
      status
      invoiceUrl
    }
    userErrors { field message }
  }
}`

const draftOrderCompleteMutation = `
mutation DraftOrderComplete($id: ID!) {
  draftOrderComplete(id: $id) {
    draftOrder {
      id
      order { id name }
    }
    userErrors { field message }
  }
}`

const orderCancelMutation = `
mutation OrderCancel($orderId: ID!, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $staffNote: String) {
  orderCancel(orderId: $orderId, reason: $reason, refund: $refund, restock: $restock, staffNote: $staffNote) {
    job { id }
    orderCancelUserErrors { field message }
  }
}`
