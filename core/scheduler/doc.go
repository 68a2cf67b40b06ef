// Package scheduler plans the time-stamped activities of every shipment at
// every stage of its logistic chain.
//
// A Scheduler runs a fixed template for one resource: Initialize, presort
// the incoming shipments of all client elements, ScheduleResource,
// UpdateShipments, then forward the handled shipments to the next element.
// The three kind-specific steps are provided by a Strategy (hub, collection,
// distribution, main run). The steps only stage their work in a Pass, which
// is validated and committed as a whole, so a failing resource leaves queues
// and plans untouched.
//
// The Driver walks the resources of a chain.Plan in chain order and runs the
// matching Scheduler for each.
package scheduler
