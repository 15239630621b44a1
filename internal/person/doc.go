// Package person creates and updates people on the access-control
// appliance and brings their DNI, face photo and registered vehicles in
// line with the request.
//
// A run is an ordered list of steps. Only the base add/update is
// mandatory; every later step is attempted, logged and reported, but its
// failure never undoes or aborts what already happened on the vendor.
package person
