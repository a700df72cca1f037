// Package locations walks an extracted dealer archive into its
// brand/dealer/location leaf records and checks the required document
// categories are present per location.
package locations
