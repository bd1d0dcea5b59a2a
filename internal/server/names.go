package server

import "math/rand"

// firstNames is the pool freshly minted identities draw their display names
// from. Collisions are resolved by the directory, not here.
var firstNames = []string{
	"Aaron", "Abigail", "Adam", "Adrian", "Aiden", "Alan", "Albert", "Alice",
	"Amanda", "Amber", "Amelia", "Amy", "Andrea", "Andrew", "Angela", "Anna",
	"Anthony", "Arthur", "Ashley", "Austin", "Barbara", "Benjamin", "Beth",
	"Billy", "Blake", "Bobby", "Bradley", "Brandon", "Brenda", "Brian",
	"Brittany", "Bruce", "Bryan", "Caleb", "Cameron", "Carl", "Carol",
	"Caroline", "Carter", "Catherine", "Charles", "Charlotte", "Chloe",
	"Christian", "Christina", "Christopher", "Claire", "Colin", "Connor",
	"Courtney", "Craig", "Crystal", "Cynthia", "Daniel", "Danielle", "David",
	"Dennis", "Derek", "Diana", "Diane", "Donald", "Donna", "Dorothy",
	"Douglas", "Dylan", "Edward", "Eleanor", "Elijah", "Elizabeth", "Ella",
	"Emily", "Emma", "Eric", "Ethan", "Eugene", "Evan", "Evelyn", "Fiona",
	"Frances", "Frank", "Gabriel", "Gary", "George", "Gerald", "Grace",
	"Gregory", "Hannah", "Harold", "Harry", "Heather", "Helen", "Henry",
	"Howard", "Ian", "Isaac", "Isabella", "Jack", "Jacob", "James", "Janet",
	"Jason", "Jeffrey", "Jennifer", "Jeremy", "Jessica", "Joan", "Joe",
	"John", "Jonathan", "Jordan", "Joseph", "Joshua", "Joyce", "Juan",
	"Judith", "Julia", "Julie", "Justin", "Karen", "Katherine", "Kathleen",
	"Kayla", "Keith", "Kelly", "Kenneth", "Kevin", "Kimberly", "Kyle",
	"Larry", "Laura", "Lauren", "Lawrence", "Leah", "Lillian", "Linda",
	"Lisa", "Logan", "Lucas", "Lucy", "Luke", "Madison", "Margaret", "Maria",
	"Marie", "Marilyn", "Mark", "Martha", "Mary", "Mason", "Matthew",
	"Megan", "Melissa", "Michael", "Michelle", "Nancy", "Natalie", "Nathan",
	"Nicholas", "Nicole", "Noah", "Nora", "Oliver", "Olivia", "Oscar",
	"Pamela", "Patricia", "Patrick", "Paul", "Peter", "Philip", "Rachel",
	"Ralph", "Randy", "Raymond", "Rebecca", "Richard", "Robert", "Roger",
	"Ronald", "Rose", "Roy", "Russell", "Ruth", "Ryan", "Samantha", "Samuel",
	"Sandra", "Sarah", "Scott", "Sean", "Sharon", "Shirley", "Sophia",
	"Stephanie", "Stephen", "Steven", "Susan", "Teresa", "Terry", "Theodore",
	"Thomas", "Timothy", "Tyler", "Victoria", "Vincent", "Virginia",
	"Walter", "Wayne", "William", "Willie", "Zachary", "Zoe",
}

func randomName() string {
	return firstNames[rand.Intn(len(firstNames))]
}
