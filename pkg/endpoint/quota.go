/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package endpoint

// QuotaSnapshot is the per-namespace GPU accounting document fetched from
// the control plane. Between refreshes the scheduler updates it locally
// through Reserve.
type QuotaSnapshot struct {
	Vendors []VendorQuota `json:"vendors"`
}

// VendorQuota groups instance-type quotas under one vendor.
type VendorQuota struct {
	Name   string          `json:"name"`
	Quotas []InstanceQuota `json:"quotas"`
}

// InstanceQuota is the accelerator accounting for one instance type.
type InstanceQuota struct {
	InstanceType     string `json:"instanceType"`
	MaxAccelerators  int    `json:"maxAccelerators"`
	UsedAccelerators int    `json:"usedAccelerators"`
}

// Available returns the number of free accelerators for the given vendor
// and instance type. A missing entry means zero capacity.
func (q *QuotaSnapshot) Available(vendor, instanceType string) int {
	if q == nil {
		return 0
	}
	for _, v := range q.Vendors {
		if v.Name != vendor {
			continue
		}
		for _, quota := range v.Quotas {
			if quota.InstanceType == instanceType {
				return quota.MaxAccelerators - quota.UsedAccelerators
			}
		}
	}
	return 0
}

// Reserve marks n accelerators as used in this snapshot. Callers reserve
// locally after admitting work so a stale snapshot cannot admit past
// capacity before the next refresh.
func (q *QuotaSnapshot) Reserve(vendor, instanceType string, n int) {
	if q == nil {
		return
	}
	for vi := range q.Vendors {
		if q.Vendors[vi].Name != vendor {
			continue
		}
		for qi := range q.Vendors[vi].Quotas {
			if q.Vendors[vi].Quotas[qi].InstanceType == instanceType {
				q.Vendors[vi].Quotas[qi].UsedAccelerators += n
				return
			}
		}
	}
}
