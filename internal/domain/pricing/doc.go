// Package pricing holds the margin-constrained price tiering core: the cost
// model of a marketplace SKU, the three-tier margin solver, the logistics tariff
// table and the seed-percent curve, plus the ports the core depends on (price
// formula, key-value cache, marketplace catalog).
package pricing
